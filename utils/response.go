package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nimblevision/config"
)

// Success writes {success:true, message?, data?}
func Success(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// SuccessList writes a collection with its count
func SuccessList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
		"data":    data,
	})
}

// Fail writes {success:false, message}
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// ServerError logs err and writes a 500; the error text is exposed only in development
func ServerError(c *gin.Context, message string, err error) {
	log.Error().Err(err).
		Str("request_id", c.GetString("request_id")).
		Str("path", c.FullPath()).
		Msg(message)

	body := gin.H{"success": false, "message": message}
	if err != nil && config.IsDevelopment() {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// ValidationFailed writes a 400 with per-field messages
func ValidationFailed(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  FieldErrors(err),
	})
}
