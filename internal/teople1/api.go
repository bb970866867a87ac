package teople1

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Credentials is the single account accepted by the demo login endpoint.
type Credentials struct {
	Username string
	Password string
}

// DefaultCredentials matches the demo account shipped with the frontend.
var DefaultCredentials = Credentials{Username: "admin", Password: "admin123"}

// API serves the plugin's backend endpoints.
type API struct {
	creds Credentials
}

// NewAPI returns an API checking logins against creds.
func NewAPI(creds Credentials) *API {
	return &API{creds: creds}
}

// Register mounts the endpoints on group, which the host roots at /api/teople1.
func (a *API) Register(group gin.IRoutes) {
	group.GET("/starting/", a.starting)
	group.POST("/custom-login/", a.login)
}

type startingResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *API) starting(c *gin.Context) {
	c.JSON(http.StatusOK, startingResponse{Title: "Starting title", Content: "Starting text"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// login answers 200 for both outcomes; the status field carries the result.
func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if a.matches(req) {
		c.JSON(http.StatusOK, loginResponse{Status: "success", Message: "Login successful"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{Status: "error", Message: "Invalid credentials"})
}

func (a *API) matches(req loginRequest) bool {
	if a.creds.Username == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.creds.Password)) == 1
	return userOK && passOK
}
