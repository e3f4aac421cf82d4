// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package common

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("secret")

func TestCreateAuthorizationToken(t *testing.T) {
	token, err := CreateAuthorizationToken(1, 2, "refs/heads/main", testSecret)
	require.NoError(t, err)
	assert.NotEqual(t, "", token)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return testSecret, nil
	})
	require.NoError(t, err)

	scp, ok := claims["scp"]
	assert.True(t, ok, "Has scp claim in jwt token")
	assert.Contains(t, scp, "Actions.Results:1:2")

	acClaim, ok := claims["ac"]
	assert.True(t, ok, "Has ac claim in jwt token")
	ac, ok := acClaim.(string)
	assert.True(t, ok, "ac claim is a string")
	scopes := []CacheScope{}
	require.NoError(t, json.Unmarshal([]byte(ac), &scopes))
	assert.Equal(t, []CacheScope{{Scope: "refs/heads/main", Permission: 3}}, scopes)
}

func TestParseAuthorizationToken(t *testing.T) {
	token, err := CreateAuthorizationToken(1, 2, "refs/heads/main", testSecret)
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	scopes, err := ParseAuthorizationToken(&http.Request{Header: headers}, testSecret)
	require.NoError(t, err)
	assert.True(t, HasCachePermission(scopes, CachePermissionRead))
	assert.True(t, HasCachePermission(scopes, CachePermissionWrite))
}

func TestParseAuthorizationTokenWrongSecret(t *testing.T) {
	token, err := CreateAuthorizationToken(1, 2, "refs/heads/main", testSecret)
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	_, err = ParseAuthorizationToken(&http.Request{Header: headers}, []byte("other"))
	assert.Error(t, err)
}

func TestParseAuthorizationTokenMalformed(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "token")
	_, err := ParseAuthorizationToken(&http.Request{Header: headers}, testSecret)
	assert.EqualError(t, err, "malformed authorization header")
}

func TestParseAuthorizationTokenNoAuthHeader(t *testing.T) {
	scopes, err := ParseAuthorizationToken(&http.Request{Header: http.Header{}}, testSecret)
	assert.NoError(t, err)
	assert.Nil(t, scopes)
	assert.False(t, HasCachePermission(scopes, CachePermissionRead))
}
