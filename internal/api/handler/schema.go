package handler

// apiRequest is the body accepted by POST /api. The action field selects
// login; otherwise the request is a save.
type apiRequest struct {
	Action          string  `json:"action,omitempty" example:"login"`
	Username        string  `json:"username,omitempty" example:"alice"`
	Password        string  `json:"password,omitempty" example:"secret"`
	Content         *string `json:"content,omitempty" example:"hello world"`
	ExpectedVersion *int64  `json:"expected_version,omitempty" example:"3"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128" example:"alice"`
	Password string `json:"password" validate:"required" example:"secret"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	User    string `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

type saveRequest struct {
	Content         *string `json:"content" example:"hello world"`
	ExpectedVersion *int64  `json:"expected_version,omitempty" example:"3"`
}

type saveResponse struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

type documentResponse struct {
	Content string `json:"content"`
	Version int64  `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}
