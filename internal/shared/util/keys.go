package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// ownerKeyLen keeps object paths short while staying collision-free in practice.
const ownerKeyLen = 32

// OwnerKey returns a storage-safe namespace for a user ID.
func OwnerKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:ownerKeyLen]
}

// ObjectKey builds "<owner>/<uuid>_<name>" for an uploaded spreadsheet.
func ObjectKey(userID, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerKey(userID), fmt.Sprintf("%s_%s", uuid.NewString(), name)), nil
}
