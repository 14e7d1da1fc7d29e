// internal/auth/oauth.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

// GitHubOAuth drives the authorization-code flow against github.com: the
// server hands the browser an authorize URL, GitHub redirects back with a
// code, and the server exchanges that code for an access token. The token
// never passes through the browser.
type GitHubOAuth struct {
	config *oauth2.Config
}

func NewGitHubOAuth(clientID, clientSecret, redirectURL string, scopes []string) *GitHubOAuth {
	return &GitHubOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     githuboauth.Endpoint,
		},
	}
}

// Configured reports whether an OAuth app is set up. Without one the
// connect flows are unavailable and token-based access still works.
func (g *GitHubOAuth) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthorizeURL returns the GitHub consent page URL and the state the
// caller must hold on to and compare on callback. Extra scopes extend the
// configured set; the organization connect flow adds admin:org this way.
// Sign-ups are disabled: only existing GitHub accounts may authorize.
func (g *GitHubOAuth) AuthorizeURL(extraScopes ...string) (authURL, state string, err error) {
	state, err = newState()
	if err != nil {
		return "", "", err
	}

	conf := *g.config
	if len(extraScopes) > 0 {
		conf.Scopes = append(append([]string{}, conf.Scopes...), extraScopes...)
	}
	authURL = conf.AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "false"))
	return authURL, state, nil
}

// Exchange trades the authorization code for an access token and the
// scopes GitHub actually granted, which can be fewer than requested.
func (g *GitHubOAuth) Exchange(ctx context.Context, code string) (token, grantedScopes string, err error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", "", apperror.Validation("code", "failed to exchange authorization code")
	}
	if tok.AccessToken == "" {
		return "", "", apperror.Validation("code", "no access token received")
	}
	grantedScopes, _ = tok.Extra("scope").(string)
	return tok.AccessToken, grantedScopes, nil
}

func newState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
