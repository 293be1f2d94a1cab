// Package deposit drives a deposit request from creation to a terminal
// state. Every path that learns a charge status, whether the synchronous
// charge call, a webhook or a status poll, goes through ApplyChargeStatus.
package deposit

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	"github.com/fastprodman/perlas-wallet/internal/repos/customers"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/shopspring/decimal"
)

var (
	ErrDepositNotFound  = errors.New("deposit not found")
	ErrDepositExpired   = errors.New("deposit has expired")
	ErrAmountOutOfRange = errors.New("deposit amount outside allowed range")
	ErrMissingToken     = errors.New("card token is required")
)

const (
	IntegrationCharge = "charge"
	IntegrationSPEI   = "spei"
)

type Contact struct {
	Name  string
	Email string
	Phone string
}

type CardPaymentRequest struct {
	UserID          uint64
	Amount          decimal.Decimal
	Token           string
	DeviceSessionID string
	Contact         Contact
}

type BankTransferRequest struct {
	UserID  uint64
	Amount  decimal.Decimal
	Contact Contact
}

// Result is what the caller sees after a deposit attempt. Gateway failures
// are reported through ErrorCode and ErrorMessage, not as an error.
type Result struct {
	Deposit      deposits.DepositRequest
	ChargeID     string
	ChargeStatus gateway.ChargeStatus
	NewBalance   decimal.Decimal
	Instructions *gateway.BankInstructions
	ErrorCode    string
	ErrorMessage string
}

type Deps struct {
	Tx        pgutils.TxRunner
	Deposits  deposits.Deposits
	Charges   gatewaytxns.GatewayTxns
	Customers customers.Customers
	Wallet    *wallet.Service
	Gateway   gateway.Gateway
	Notifier  notify.Notifier
	Auditor   audit.Auditor
	IDs       *ids.Generator
	Policy    config.DepositPolicy
	Currency  string
	Now       func() time.Time
}

type Service struct {
	tx        pgutils.TxRunner
	deposits  deposits.Deposits
	charges   gatewaytxns.GatewayTxns
	customers customers.Customers
	wallet    *wallet.Service
	gw        gateway.Gateway
	notifier  notify.Notifier
	audit     audit.Auditor
	ids       *ids.Generator
	policy    config.DepositPolicy
	currency  string
	now       func() time.Time
	log       *slog.Logger
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}

	if d.IDs == nil {
		d.IDs = ids.NewGenerator()
	}

	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}

	if d.Currency == "" {
		d.Currency = "MXN"
	}

	return &Service{
		tx:        d.Tx,
		deposits:  d.Deposits,
		charges:   d.Charges,
		customers: d.Customers,
		wallet:    d.Wallet,
		gw:        d.Gateway,
		notifier:  d.Notifier,
		audit:     d.Auditor,
		ids:       d.IDs,
		policy:    d.Policy,
		currency:  d.Currency,
		now:       d.Now,
		log:       logging.Component("deposit"),
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
