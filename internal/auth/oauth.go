package auth

import (
	"golang.org/x/oauth2"
)

const (
	// Device service OAuth endpoints
	AuthURL  = "https://connect.garmin.com/oauth2Confirm"
	TokenURL = "https://connectapi.garmin.com/di-oauth2-service/oauth/token"
)

// Scopes required for reading activities and running dynamics
var Scopes = []string{
	"activity:read",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8089/callback"
}

// NewOAuthConfig creates an oauth2.Config from our Config
func NewOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// AuthResult contains the token and athlete info from successful auth
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
}

// ExtractAthleteID extracts the athlete ID from the token extras.
// The service includes the user identifier in the token response.
func ExtractAthleteID(token *oauth2.Token) int64 {
	if id, ok := token.Extra("user_id").(float64); ok {
		return int64(id)
	}
	return 0
}
