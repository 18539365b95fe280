package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace scopes ChunkID so ids never collide with uuids minted elsewhere.
var chunkNamespace = uuid.MustParse("6f1c5d4e-2a8b-5c3e-9d7f-0b4a1e6c8d21")

// ContentHash is the lowercase hex SHA-256 of the raw content bytes.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DocID derives the document key from its path. Surrounding whitespace is ignored.
func DocID(path string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(path)))
	return hex.EncodeToString(sum[:])[:32]
}

// ChunkID is stable for a (path, chunk index) pair and doubles as the remote point id.
func ChunkID(path string, chunkIndex int) string {
	name := strings.TrimSpace(path) + "#" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
