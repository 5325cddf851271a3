package apiclient

import "net/http"

// credentialsRequest mirrors the server's handlers.credentialsRequest body
// shape for POST /auth/register and POST /auth/login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse mirrors handlers.LoginResponse.
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	UserID    uint32 `json:"user_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Register calls POST /auth/register.
func (c *Client) Register(username, password string) error {
	_, _, err := c.doRaw(http.MethodPost, "/auth/register", jsonReader(credentialsRequest{
		Username: username,
		Password: password,
	}), "application/json")
	return err
}

// Login calls POST /auth/login and, on success, stores the returned token
// on the client for subsequent requests.
func (c *Client) Login(username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post("/auth/login", credentialsRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}
