package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nhle/career-planner/internal/auth"
)

// Headers set by the upstream session provider.
const (
	HeaderAuthorization = "Authorization"
	HeaderUserPlan      = "X-User-Plan"
	planPro             = "pro"
)

var errNoCredentials = errors.New("missing bearer credentials")

// Authenticator resolves the principal behind a request.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Principal, error)
}

// HeaderAuthenticator trusts identity headers injected by a session
// proxy in front of the server: "Authorization: Bearer <user-id>" and
// "X-User-Plan: pro" for paid users.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (auth.Principal, error) {
	scheme, userID, ok := strings.Cut(r.Header.Get(HeaderAuthorization), " ")
	userID = strings.TrimSpace(userID)
	if !ok || !strings.EqualFold(scheme, "Bearer") || userID == "" {
		return auth.Principal{}, errNoCredentials
	}
	return auth.Principal{
		UserID: userID,
		Pro:    strings.EqualFold(r.Header.Get(HeaderUserPlan), planPro),
	}, nil
}

// authenticate is the /api/v1 middleware. It stores the principal in the
// request context or aborts with 401.
func (s *Server) authenticate(c *gin.Context) {
	p, err := s.auth.Authenticate(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error: err.Error(),
			Code:  CodeUnauthorized,
		})
		return
	}
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
	c.Next()
}
