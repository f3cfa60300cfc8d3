package middleware

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	tokens map[string]string
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("ID token has expired")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]string{"good": "firebase-uid-1", "blank": ""}}
	mw := FirebaseAuthMiddleware(verifier)

	id, err := runMiddleware(mw, "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id)

	id, err = runMiddleware(mw, "bearer good")
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id)

	for _, header := range []string{"", "good", "Bearer expired", "Bearer blank"} {
		_, err := runMiddleware(mw, header)
		requireUnauthorized(t, err)
	}
}
