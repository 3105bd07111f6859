package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const actionLogin = "login"

// APIHandler serves the combined POST /api endpoint, dispatching to login or
// save by the shape of the body.
type APIHandler struct {
	auth *AuthHandler
	docs *DocumentHandler
}

func NewAPIHandler(auth *AuthHandler, docs *DocumentHandler) *APIHandler {
	return &APIHandler{auth: auth, docs: docs}
}

func (h *APIHandler) Post(c echo.Context) error {
	var req apiRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	switch {
	case req.Action == actionLogin:
		return h.auth.login(c, loginRequest{Username: req.Username, Password: req.Password})
	case req.Action != "":
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	case req.Content != nil:
		return h.docs.save(c, saveRequest{Content: req.Content, ExpectedVersion: req.ExpectedVersion})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "request must carry action or content")
	}
}

// decodeJSON reads the body as JSON whatever the Content-Type says. Browsers
// and older clients post saves as text/plain.
func decodeJSON(c echo.Context, dst any) error {
	body := c.Request().Body
	if body == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "empty request body")
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "empty request body")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
		}
		// The body limit middleware fails reads of streamed bodies this way.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return nil
}
