package giftcard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// generateCode draws a random redemption code.
func generateCode() (Code, error) {
	buffer := make([]byte, codeByteLength)
	if _, err := rand.Read(buffer); err != nil {
		return Code{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return NewCode(hex.EncodeToString(buffer))
}

// uniqueCode generates a code that is not yet persisted, retrying on
// collision up to a bounded number of attempts.
func uniqueCode(ctx context.Context, store Store) (Code, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return Code{}, err
		}
		exists, err := store.CodeExists(ctx, code)
		if err != nil {
			return Code{}, err
		}
		if !exists {
			return code, nil
		}
	}
	return Code{}, ErrCodeCollision
}
