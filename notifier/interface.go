package notifier

import "context"

type Notifier interface {
	Send(ctx context.Context, subject, htmlBody string) error
	GetType() string
}
