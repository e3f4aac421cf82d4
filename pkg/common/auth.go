// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cache scope permissions carried in the `ac` claim of a runtime token.
const (
	CachePermissionRead  = 1
	CachePermissionWrite = 2
)

// CacheScope grants access to the cache entries of one ref.
type CacheScope struct {
	Scope      string `json:"Scope"`
	Permission int    `json:"Permission"`
}

type runtimeClaims struct {
	jwt.RegisteredClaims
	Scp   string `json:"scp"`
	Ac    string `json:"ac"`
	RunID int64
	JobID int64
}

// CreateAuthorizationToken issues an ACTIONS_RUNTIME_TOKEN that grants read
// and write access to the cache of ref, signed with secret.
func CreateAuthorizationToken(runID, jobID int64, ref string, secret []byte) (string, error) {
	now := time.Now()

	ac, err := json.Marshal([]CacheScope{
		{Scope: ref, Permission: CachePermissionRead | CachePermissionWrite},
	})
	if err != nil {
		return "", err
	}

	claims := runtimeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			NotBefore: jwt.NewNumericDate(now),
		},
		Scp:   fmt.Sprintf("Actions.Results:%d:%d", runID, jobID),
		Ac:    string(ac),
		RunID: runID,
		JobID: jobID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

// ParseAuthorizationToken validates the bearer token of req and returns the
// cache scopes it grants. A request without an Authorization header yields
// (nil, nil).
func ParseAuthorizationToken(req *http.Request, secret []byte) ([]CacheScope, error) {
	h := req.Header.Get("Authorization")
	if h == "" {
		return nil, nil
	}

	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("malformed authorization header")
	}

	token, err := jwt.ParseWithClaims(raw, &runtimeClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	c, ok := token.Claims.(*runtimeClaims)
	if !token.Valid || !ok {
		return nil, fmt.Errorf("invalid token claim")
	}

	var scopes []CacheScope
	if c.Ac != "" {
		if err := json.Unmarshal([]byte(c.Ac), &scopes); err != nil {
			return nil, fmt.Errorf("parse ac claim: %w", err)
		}
	}
	return scopes, nil
}

// HasCachePermission reports whether any scope grants permission.
func HasCachePermission(scopes []CacheScope, permission int) bool {
	for _, s := range scopes {
		if s.Permission&permission != 0 {
			return true
		}
	}
	return false
}
