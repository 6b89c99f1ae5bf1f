// Package security validates caller-supplied paths and regex patterns
// before they reach the filesystem or the regex engine.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"scout/internal/scouterr"
)

// sensitiveExact are file names never served regardless of location.
var sensitiveExact = []string{
	".env", "credentials", "id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	".npmrc", ".pypirc", ".netrc", ".git-credentials",
	".bash_history", ".zsh_history", ".psql_history", ".mysql_history",
}

// sensitivePrefixes block name prefixes like ".env.production".
var sensitivePrefixes = []string{".env.", "credentials."}

// sensitiveSuffixes block secret material by extension.
var sensitiveSuffixes = []string{
	".pem", ".key", ".p12", ".pfx", ".keystore", ".jks", ".tfstate",
}

// sensitivePathParts block directory segments anywhere in the path.
var sensitivePathParts = []string{".ssh/", ".gnupg/", ".aws/", ".kube/"}

// ValidatePath resolves a caller-supplied relative path against root and
// rejects traversal attempts. It returns the absolute path on success.
func ValidatePath(root, rel string) (string, error) {
	if rel == "" {
		return "", scouterr.New(scouterr.InvalidPath, "empty path")
	}
	if strings.ContainsRune(rel, 0) {
		return "", scouterr.New(scouterr.InvalidPath, "path contains a null byte")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return "", scouterr.New(scouterr.InvalidPath, "absolute paths are not allowed: %s", rel)
	}
	// Windows drive letters, even on other platforms.
	if len(rel) >= 2 && rel[1] == ':' {
		return "", scouterr.New(scouterr.InvalidPath, "absolute paths are not allowed: %s", rel)
	}

	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", scouterr.New(scouterr.InvalidPath, "path escapes the workspace root: %s", rel)
	}

	abs := filepath.Join(root, cleaned)
	if sub, err := filepath.Rel(root, abs); err != nil || strings.HasPrefix(sub, "..") {
		return "", scouterr.New(scouterr.InvalidPath, "path escapes the workspace root: %s", rel)
	}
	return abs, nil
}

// IsSensitive reports whether a relative path matches the deny patterns
// for credential and secret files.
func IsSensitive(rel string) bool {
	slashed := filepath.ToSlash(strings.ToLower(rel))
	name := filepath.Base(slashed)

	for _, e := range sensitiveExact {
		if name == e {
			return true
		}
	}
	for _, p := range sensitivePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range sensitiveSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, part := range sensitivePathParts {
		if strings.Contains(slashed, part) {
			return true
		}
	}
	return false
}

// ValidateReadAccess combines path validation with the sensitive-file
// check and verifies the target is a regular file.
func ValidateReadAccess(root, rel string) (string, error) {
	abs, err := ValidatePath(root, rel)
	if err != nil {
		return "", err
	}
	if IsSensitive(rel) {
		return "", scouterr.New(scouterr.InvalidPath, "access to sensitive file denied: %s", rel)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", scouterr.Wrap(scouterr.NotFound, err, "cannot read %s", rel)
	}
	if !info.Mode().IsRegular() {
		return "", scouterr.New(scouterr.InvalidPath, "not a regular file: %s", rel)
	}
	return abs, nil
}
