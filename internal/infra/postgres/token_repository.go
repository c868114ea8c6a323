package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"casestudy/internal/tokens"
)

// TokenRepository reads API keys from the tokens table.
type TokenRepository struct {
	DB  *DB
	DSN string
}

func NewTokenRepository(db *DB, dsn string) *TokenRepository {
	return &TokenRepository{DB: db, DSN: dsn}
}

// LoadTokens returns every key with its rate limit and scope.
func (r *TokenRepository) LoadTokens(ctx context.Context) (map[string]tokens.Entry, error) {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return nil, err
	}
	if err := VerifySchema(db); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit, scope FROM tokens;`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[string]tokens.Entry)
	for rows.Next() {
		var (
			token    string
			limit    int
			scopeRaw []byte
		)
		if err := rows.Scan(&token, &limit, &scopeRaw); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		scope := tokens.Scope{}
		if len(scopeRaw) > 0 {
			if err := json.Unmarshal(scopeRaw, &scope); err != nil {
				return nil, fmt.Errorf("decode scope for token: %w", err)
			}
		}
		out[token] = tokens.Entry{RateLimit: limit, Scope: scope}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}
