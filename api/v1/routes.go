package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServerInterface is implemented by the report handlers.
type ServerInterface interface {
	// (GET /attempts)
	GetAttempts(c *gin.Context, params GetAttemptsParams)
	// (GET /health)
	GetHealth(c *gin.Context)
}

// RegisterHandlers parses query parameters and routes requests to si.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	router.GET("/attempts", func(c *gin.Context) {
		params, err := parseGetAttemptsParams(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		si.GetAttempts(c, params)
	})
	router.GET("/health", si.GetHealth)
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid format for parameter " + e.name + ": " + e.value
}

func parseGetAttemptsParams(c *gin.Context) (GetAttemptsParams, error) {
	var params GetAttemptsParams

	if values, ok := c.GetQueryArray("scenario"); ok {
		var scenarios []string
		for _, v := range values {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					scenarios = append(scenarios, s)
				}
			}
		}
		params.Scenario = &scenarios
	}

	if v, ok := c.GetQuery("passed"); ok {
		passed, err := strconv.ParseBool(v)
		if err != nil {
			return params, &paramError{name: "passed", value: v}
		}
		params.Passed = &passed
	}

	for name, dst := range map[string]**int{"page": &params.Page, "pageSize": &params.PageSize} {
		if v, ok := c.GetQuery(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return params, &paramError{name: name, value: v}
			}
			*dst = &n
		}
	}

	return params, nil
}
