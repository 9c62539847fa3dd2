package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"community-service/backend/internal/action"
)

// ok renders {"success": true, ...fields}. Struct results are flattened into the
// envelope by their json tags.
func ok(c *gin.Context, v any) {
	body := gin.H{}
	switch x := v.(type) {
	case nil:
	case gin.H:
		for k, val := range x {
			body[k] = val
		}
	default:
		if err := mergeFields(body, x); err != nil {
			fail(c, err)
			return
		}
	}
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func mergeFields(dst gin.H, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	// keeps uint64 ids exact
	dec.UseNumber()
	return dec.Decode(&dst)
}

// fail renders {"success": false, "error": message, "code": kind}, plus the
// procedure's rejection code as "reason" when there is one.
func fail(c *gin.Context, err error) {
	e := action.AsError(err)
	body := gin.H{
		"success": false,
		"error":   e.Message,
		"code":    e.Kind,
	}
	if e.Code != "" {
		body["reason"] = e.Code
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), body)
}
