package notify

import (
	"context"
	"math/big"

	"github.com/jordan-wright/email"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Notifier interface {
		Notify(ctx context.Context, count int, total *big.Int) error
	}
	Metrics interface {
		ObserveDelivery(err error)
	}
	// Mailer delivers a prepared message.
	Mailer interface {
		Send(msg *email.Email) error
	}
)
