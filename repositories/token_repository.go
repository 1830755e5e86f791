package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	tokenKeyPrefix = "shutdown:token:"
	tokenIndexKey  = "shutdown:tokens"
)

// consumeScript flips consumed from 0 to 1 in one step.
// Returns -1 when the token does not exist, 0 when already consumed.
var consumeScript = redis.NewScript(`
local consumed = redis.call('HGET', KEYS[1], 'consumed')
if not consumed then
	return -1
end
if consumed == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'consumed', '1', 'consumedAt', ARGV[1], 'consumedBy', ARGV[2])
return 1
`)

// TokenRepository keeps the shutdown token table in Redis so every instance
// sees the same tokens and consumption is atomic across instances.
type TokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

func (tr *TokenRepository) Save(ctx context.Context, token models.ShutdownToken) error {
	created, err := tr.client.HSetNX(ctx, tokenKey(token.Token), "issuedBy", token.IssuedBy).Result()
	if err != nil {
		return err
	}
	if !created {
		return utils.NewConflictError("Shutdown token already exists")
	}

	_, err = tr.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey(token.Token), encodeToken(token))
		pipe.SAdd(ctx, tokenIndexKey, token.Token)
		return nil
	})
	return err
}

func (tr *TokenRepository) Get(ctx context.Context, token string) (*models.ShutdownToken, error) {
	fields, err := tr.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, utils.ErrTokenNotFound
	}
	return decodeToken(token, fields)
}

func (tr *TokenRepository) Consume(ctx context.Context, token, consumedBy string, at time.Time) (bool, error) {
	result, err := consumeScript.Run(ctx, tr.client, []string{tokenKey(token)},
		at.UTC().Format(time.RFC3339Nano), consumedBy).Int()
	if err != nil {
		return false, err
	}

	switch result {
	case -1:
		return false, utils.ErrTokenNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func (tr *TokenRepository) MarkExecuted(ctx context.Context, token string) error {
	exists, err := tr.client.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return utils.ErrTokenNotFound
	}
	return tr.client.HSet(ctx, tokenKey(token), "executed", "1").Err()
}

func (tr *TokenRepository) List(ctx context.Context) ([]models.ShutdownToken, error) {
	values, err := tr.client.SMembers(ctx, tokenIndexKey).Result()
	if err != nil {
		return nil, err
	}

	tokens := make([]models.ShutdownToken, 0, len(values))
	for _, value := range values {
		token, err := tr.Get(ctx, value)
		if err != nil {
			if utils.IsKind(err, utils.ErrCodeNotFound) {
				continue
			}
			return nil, err
		}
		tokens = append(tokens, *token)
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].IssuedAt.Before(tokens[j].IssuedAt) })
	return tokens, nil
}

func (tr *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	values, err := tr.client.SMembers(ctx, tokenIndexKey).Result()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, value := range values {
		token, err := tr.Get(ctx, value)
		if err != nil {
			if utils.IsKind(err, utils.ErrCodeNotFound) {
				tr.client.SRem(ctx, tokenIndexKey, value)
				continue
			}
			return removed, err
		}
		if token.Consumed || !token.ExpiresAt.Before(cutoff) {
			continue
		}

		_, err = tr.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, tokenKey(value))
			pipe.SRem(ctx, tokenIndexKey, value)
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

func encodeToken(token models.ShutdownToken) map[string]interface{} {
	fields := map[string]interface{}{
		"issuedBy":  token.IssuedBy,
		"issuedAt":  token.IssuedAt.UTC().Format(time.RFC3339Nano),
		"expiresAt": token.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"consumed":  boolField(token.Consumed),
		"executed":  boolField(token.Executed),
	}
	if token.Consumed {
		fields["consumedAt"] = token.ConsumedAt.UTC().Format(time.RFC3339Nano)
		fields["consumedBy"] = token.ConsumedBy
	}
	return fields
}

func decodeToken(value string, fields map[string]string) (*models.ShutdownToken, error) {
	token := &models.ShutdownToken{
		Token:      value,
		IssuedBy:   fields["issuedBy"],
		ConsumedBy: fields["consumedBy"],
		Consumed:   fields["consumed"] == "1",
		Executed:   fields["executed"] == "1",
	}

	var err error
	if token.IssuedAt, err = parseTimeField(fields, "issuedAt"); err != nil {
		return nil, err
	}
	if token.ExpiresAt, err = parseTimeField(fields, "expiresAt"); err != nil {
		return nil, err
	}
	if token.ConsumedAt, err = parseTimeField(fields, "consumedAt"); err != nil {
		return nil, err
	}
	return token, nil
}

func parseTimeField(fields map[string]string, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s on shutdown token: %w", name, err)
	}
	return t, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
