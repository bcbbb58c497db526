package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a media token is missing, expired or was
// issued for another object.
var ErrInvalidToken = errors.New("invalid media token")

// LocalStorage implements the Storage interface using the local filesystem
type LocalStorage struct {
	dataDir    string
	baseURL    string
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewLocalStorage creates a new local filesystem storage backend. Objects are
// located under baseURL, e.g. "http://localhost:8080/media", with a token
// signed by signingKey that is valid for tokenTTL.
func NewLocalStorage(dataDir, baseURL string, signingKey []byte, tokenTTL time.Duration) (*LocalStorage, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("media signing key is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &LocalStorage{
		dataDir:    dataDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}, nil
}

// Put saves an object to the local filesystem
func (l *LocalStorage) Put(ctx context.Context, objectPath string, reader io.Reader, size int64, opts PutOptions) error {
	filePath, err := l.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	dst, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, objectPath)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, &contextReader{ctx: ctx, r: reader}); err != nil {
		dst.Close()
		os.Remove(filePath) // Clean up on error
		return fmt.Errorf("failed to save file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to save file: %w", err)
	}

	return nil
}

// Locator returns a media URL for the object carrying a short-lived token
func (l *LocalStorage) Locator(_ context.Context, objectPath string) (string, error) {
	if _, err := l.resolve(objectPath); err != nil {
		return "", err
	}

	key := cleanKey(objectPath)
	now := l.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(l.tokenTTL)),
	}).SignedString(l.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign media token: %w", err)
	}

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return l.baseURL + "/" + strings.Join(segments, "/") + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token was issued by Locator for objectPath and has not expired
func (l *LocalStorage) Verify(objectPath, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return l.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject != cleanKey(objectPath) {
		return fmt.Errorf("%w: issued for another object", ErrInvalidToken)
	}
	return nil
}

// Get retrieves an object from the local filesystem
func (l *LocalStorage) Get(_ context.Context, objectPath string) (io.ReadCloser, error) {
	filePath, err := l.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// resolve maps an object path to a file inside dataDir, rejecting paths that escape it.
func (l *LocalStorage) resolve(objectPath string) (string, error) {
	key := cleanKey(objectPath)
	if key == "" || strings.Contains(objectPath, `\`) {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return filepath.Join(l.dataDir, filepath.FromSlash(key)), nil
}

// cleanKey normalises an object path to the form tokens are issued for
func cleanKey(objectPath string) string {
	return strings.TrimPrefix(path.Clean("/"+objectPath), "/")
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
