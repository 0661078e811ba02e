package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/identity"
)

// FederatedLinker turns a provider profile into a local identity.
type FederatedLinker interface {
	LinkFederated(ctx context.Context, profile identity.FederatedProfile) (identity.Identity, error)
}

type FederatedHandler struct {
	linker FederatedLinker
	auth   *AuthHandler
}

func NewFederatedHandler(linker FederatedLinker, auth *AuthHandler) *FederatedHandler {
	return &FederatedHandler{linker: linker, auth: auth}
}

// Begin starts provider sign-in. Desktop clients get the consent URL to open
// in a popup; a client reporting ?popup=blocked, or any mobile client, is
// redirected instead.
func (h *FederatedHandler) Begin(c *gin.Context) {
	req := identity.WithProvider(c.Request, c.Param("provider"))
	popupBlocked := c.Query("popup") == "blocked"

	var url string
	method, err := identity.SignInFederated(c.Request.Context(), c.Request.UserAgent(),
		func(ctx context.Context, method identity.FederatedMethod) error {
			if method == identity.MethodPopup && popupBlocked {
				return identity.NewAuthError(identity.CodePopupBlocked, nil)
			}
			var err error
			url, err = identity.BeginURL(c.Writer, req)
			return err
		})
	if err != nil {
		respondError(c, err)
		return
	}

	if method == identity.MethodRedirect {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"method": string(method), "url": url})
}

func (h *FederatedHandler) Callback(c *gin.Context) {
	req := identity.WithProvider(c.Request, c.Param("provider"))

	profile, err := identity.CompleteAuth(c.Writer, req)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := h.linker.LinkFederated(c.Request.Context(), profile)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auth.respondToken(c, http.StatusOK, id)
}
