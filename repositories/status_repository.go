package repositories

import (
	"context"
	"eventops/models"
	"time"

	"github.com/go-redis/redis/v8"
)

const systemStatusKey = "system:status"

const defaultStatusMessage = "All systems operational"

// transitionScript writes the new status only if the current one (defaulting
// to operational when unset) is among ARGV[4..].
var transitionScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'status')
if not current then
	current = 'operational'
end
for i = 4, #ARGV do
	if ARGV[i] == current then
		redis.call('HSET', KEYS[1], 'status', ARGV[1], 'message', ARGV[2], 'updatedAt', ARGV[3])
		return 1
	end
end
return 0
`)

// StatusRepository stores the SystemStatus singleton in a Redis hash shared by
// every instance.
type StatusRepository struct {
	client *redis.Client
}

func NewStatusRepository(client *redis.Client) *StatusRepository {
	return &StatusRepository{client: client}
}

func (sr *StatusRepository) Get(ctx context.Context) (models.SystemStatus, error) {
	fields, err := sr.client.HGetAll(ctx, systemStatusKey).Result()
	if err != nil {
		return models.SystemStatus{}, err
	}
	if len(fields) == 0 {
		return models.SystemStatus{
			Status:  models.SystemStatusOperational,
			Message: defaultStatusMessage,
		}, nil
	}

	status := models.SystemStatus{
		Status:  fields["status"],
		Message: fields["message"],
	}
	if raw := fields["updatedAt"]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			status.UpdatedAt = t
		}
	}
	return status, nil
}

func (sr *StatusRepository) Transition(ctx context.Context, from []string, next models.SystemStatus) (models.SystemStatus, bool, error) {
	args := make([]interface{}, 0, 3+len(from))
	args = append(args, next.Status, next.Message, next.UpdatedAt.UTC().Format(time.RFC3339Nano))
	for _, f := range from {
		args = append(args, f)
	}

	applied, err := transitionScript.Run(ctx, sr.client, []string{systemStatusKey}, args...).Int()
	if err != nil {
		return models.SystemStatus{}, false, err
	}
	if applied == 1 {
		return next, true, nil
	}

	current, err := sr.Get(ctx)
	if err != nil {
		return models.SystemStatus{}, false, err
	}
	return current, false, nil
}
