package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

// Store manages login sessions. Tokens are signed JWTs whose jti keys a
// Redis record; destroying the record revokes the token before expiry.
type Store interface {
	Create(ctx context.Context, account *domain.Account) (string, error)
	Get(ctx context.Context, token string) (*domain.AccountInfo, error)
	Destroy(ctx context.Context, token string) error
}

type Claims struct {
	Sub int64 `json:"sub"`
	jwt.RegisteredClaims
}

type Manager struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewManager(rdb *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{
		rdb:    rdb,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func sessionKey(jti string) string {
	return "session:" + jti
}

func (m *Manager) Create(ctx context.Context, account *domain.Account) (string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := Claims{
		Sub: account.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Audience:  []string{"exchange-api"},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	info := account.ToAccountInfo()
	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode session record: %w", err)
	}

	if err := m.rdb.Set(ctx, sessionKey(jti), payload, m.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session record: %w", err)
	}

	return token, nil
}

func (m *Manager) Get(ctx context.Context, token string) (*domain.AccountInfo, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, domain.ErrNotAuthenticated
	}

	raw, err := m.rdb.Get(ctx, sessionKey(claims.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Token is valid but the record is gone: logged out or expired.
		return nil, domain.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session record: %w", err)
	}

	var info domain.AccountInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &info, nil
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		// An unparseable token has no session to destroy.
		return nil
	}
	return m.rdb.Del(ctx, sessionKey(claims.ID)).Err()
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
