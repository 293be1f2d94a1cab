package deposit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/repos/customers"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/shopspring/decimal"
)

type attempt struct {
	userID          uint64
	amount          decimal.Decimal
	method          deposits.Method
	token           string
	deviceSessionID string
	contact         Contact
}

// ProcessCardPayment charges a card. A charge completed synchronously is
// credited before returning; a pending one waits for the webhook.
func (s *Service) ProcessCardPayment(ctx context.Context, req CardPaymentRequest) (Result, error) {
	if req.Token == "" {
		return Result{}, ErrMissingToken
	}

	return s.process(ctx, attempt{
		userID:          req.UserID,
		amount:          req.Amount,
		method:          deposits.MethodCard,
		token:           req.Token,
		deviceSessionID: req.DeviceSessionID,
		contact:         req.Contact,
	})
}

// ProcessBankTransfer creates a SPEI charge and returns where to pay. The
// deposit is never approved automatically.
func (s *Service) ProcessBankTransfer(ctx context.Context, req BankTransferRequest) (Result, error) {
	return s.process(ctx, attempt{
		userID:  req.UserID,
		amount:  req.Amount,
		method:  deposits.MethodBankAccount,
		contact: req.Contact,
	})
}

func (s *Service) process(ctx context.Context, a attempt) (Result, error) {
	err := s.validateAmount(a.amount)
	if err != nil {
		return Result{}, err
	}

	err = s.wallet.Open(ctx, a.userID)
	if err != nil {
		return Result{}, fmt.Errorf("open wallet: %w", err)
	}

	err = s.wallet.Usable(ctx, a.userID)
	if err != nil {
		return Result{}, err
	}

	customer, err := s.ensureCustomer(ctx, a.userID, a.contact)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return Result{ErrorCode: gwErr.Code, ErrorMessage: gwErr.Description}, nil
		}

		return Result{}, fmt.Errorf("ensure customer: %w", err)
	}

	d, err := s.createPending(ctx, a)
	if err != nil {
		return Result{}, err
	}

	res := Result{Deposit: d}

	ch, err := s.gw.CreateCharge(ctx, gateway.ChargeRequest{
		Method:          gateway.Method(a.method),
		Amount:          d.Amount,
		Currency:        s.currency,
		Description:     "Perlas deposit " + d.ReferenceCode,
		CustomerID:      customer.ExternalCustomerID,
		SourceToken:     a.token,
		OrderID:         d.ReferenceCode,
		DeviceSessionID: a.deviceSessionID,
		DueDate:         &d.ExpiresAt,
	})
	if err != nil {
		return s.chargeFailed(ctx, d, err)
	}

	res.ChargeID = ch.ID
	res.ChargeStatus = ch.Status
	res.Instructions = ch.Bank

	err = s.recordCharge(ctx, d, ch, customer.ExternalCustomerID, a.deviceSessionID)
	if err != nil {
		// The charge exists at the gateway; the deposit stays PENDING and
		// the sweep or an operator picks it up.
		return Result{}, fmt.Errorf("record charge %s: %w", ch.ID, err)
	}

	if ch.Status == gateway.StatusPending {
		return res, nil
	}

	out, err := s.apply(ctx, ch.ID, UpdateFromCharge(ch), deposits.ValidatorSystem)
	if err != nil {
		return Result{}, err
	}

	res.Deposit = out.Deposit
	res.NewBalance = out.NewBalance
	res.ErrorCode = out.ErrorCode
	res.ErrorMessage = out.ErrorMessage

	return res, nil
}

func (s *Service) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return wallet.ErrInvalidAmount
	}

	if amount.LessThan(s.policy.MinAmount) || amount.GreaterThan(s.policy.MaxAmount) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrAmountOutOfRange,
			amount.StringFixed(2), s.policy.MinAmount.StringFixed(2), s.policy.MaxAmount.StringFixed(2))
	}

	return nil
}

// ensureCustomer returns the gateway customer for userID, creating it on
// first use. Concurrent first uses may both create a gateway customer; the
// first mapping saved wins.
func (s *Service) ensureCustomer(ctx context.Context, userID uint64, c Contact) (customers.Mapping, error) {
	m, err := s.customers.Get(ctx, userID, s.gw.Name())
	if err == nil {
		return m, nil
	}

	if !errors.Is(err, customers.ErrCustomerNotFound) {
		return customers.Mapping{}, fmt.Errorf("get customer: %w", err)
	}

	created, err := s.gw.CreateCustomer(ctx, gateway.CustomerRequest{
		ExternalID: "perlas-" + strconv.FormatUint(userID, 10),
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
	})
	if err != nil {
		return customers.Mapping{}, gateway.AsError(err)
	}

	m, err = s.customers.Save(ctx, customers.Mapping{
		UserID:             userID,
		Gateway:            s.gw.Name(),
		ExternalCustomerID: created.ID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		CreatedAt:          s.clock(),
	})
	if err != nil {
		return customers.Mapping{}, fmt.Errorf("save customer: %w", err)
	}

	return m, nil
}

// createPending commits the deposit request and its PENDING ledger row
// before the gateway is called, so a crash after charging leaves a record.
func (s *Service) createPending(ctx context.Context, a attempt) (deposits.DepositRequest, error) {
	now := s.clock()

	d := deposits.DepositRequest{
		ID:                   ids.NewID(),
		UserID:               a.userID,
		Amount:               a.amount,
		PearlsAmount:         a.amount,
		PaymentMethod:        a.method,
		ReferenceCode:        s.ids.ReferenceCode(now),
		IntegrationMethod:    IntegrationCharge,
		AutoApprovalEligible: a.method == deposits.MethodCard,
		Status:               deposits.StatusPending,
		ExpiresAt:            now.Add(s.policy.Expiry),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if a.method == deposits.MethodBankAccount {
		d.IntegrationMethod = IntegrationSPEI
	}

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := s.wallet.OpenPendingTx(tx, wallet.PendingRequest{
			UserID:      d.UserID,
			Amount:      d.PearlsAmount,
			Type:        transactions.TypePearlPurchase,
			Description: "deposit " + d.ReferenceCode,
			ReferenceID: d.ReferenceCode,
		})
		if err != nil {
			return err
		}

		d.TransactionID = t.ID

		return s.deposits.Insert(tx, d)
	})
	if err != nil {
		return deposits.DepositRequest{}, fmt.Errorf("create deposit: %w", err)
	}

	s.audit.Record(ctx, audit.Record{
		Action:    audit.ActionDepositCreated,
		Actor:     "user:" + strconv.FormatUint(d.UserID, 10),
		UserID:    d.UserID,
		SubjectID: "deposit:" + d.ID,
		Details: map[string]any{
			"reference_code": d.ReferenceCode,
			"method":         string(d.PaymentMethod),
			"amount":         d.Amount.StringFixed(2),
		},
		At: now,
	})

	return d, nil
}

// chargeFailed handles a CreateCharge error. A definite refusal rejects the
// deposit; anything else leaves it PENDING since the charge may exist.
func (s *Service) chargeFailed(ctx context.Context, d deposits.DepositRequest, err error) (Result, error) {
	gwErr := gateway.AsError(err)
	res := Result{Deposit: d, ErrorCode: gwErr.Code, ErrorMessage: gwErr.Description}

	if gwErr.Temporary {
		s.log.WarnContext(ctx, "charge outcome unknown, deposit left pending",
			"deposit_id", d.ID, "code", gwErr.Code, "error", err)

		return res, nil
	}

	var out Outcome

	txErr := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		locked, err := s.deposits.LockByID(tx, d.ID)
		if err != nil {
			return fmt.Errorf("lock deposit: %w", err)
		}

		if locked.Status.Terminal() {
			out = Outcome{Deposit: locked}
			return nil
		}

		err = s.rejectTx(tx, locked, deposits.ValidatorSystem, failureNote(gwErr.Code, gwErr.Description),
			transactions.StatusFailed, s.clock())
		if err != nil {
			return err
		}

		out.Deposit, err = s.deposits.LockByID(tx, d.ID)
		if err != nil {
			return fmt.Errorf("reload deposit: %w", err)
		}

		out.Changed = true

		return nil
	})
	if txErr != nil {
		return Result{}, fmt.Errorf("reject deposit after charge failure: %w", txErr)
	}

	out.Validator = deposits.ValidatorSystem
	out.ChargeStatus = gateway.StatusFailed
	out.ErrorCode = gwErr.Code
	out.ErrorMessage = gwErr.Description
	s.Publish(ctx, out)

	res.Deposit = out.Deposit
	res.ChargeStatus = gateway.StatusFailed

	return res, nil
}

// recordCharge stores the gateway's view of a new charge.
func (s *Service) recordCharge(ctx context.Context, d deposits.DepositRequest, ch gateway.Charge, customerID, deviceSessionID string) error {
	now := s.clock()

	g := gatewaytxns.GatewayTransaction{
		ID:                ids.NewID(),
		DepositRequestID:  d.ID,
		ExternalChargeID:  ch.ID,
		Gateway:           s.gw.Name(),
		Amount:            d.Amount,
		Currency:          s.currency,
		Method:            string(d.PaymentMethod),
		ExternalStatus:    ch.RawStatus,
		ErrorCode:         ch.ErrorCode,
		ErrorMessage:      ch.ErrorMessage,
		CustomerID:        customerID,
		AuthorizationCode: ch.AuthorizationCode,
		DeviceSessionID:   deviceSessionID,
		RiskScore:         ch.RiskScore,
		ChargedAt:         ch.ChargedAt,
		ExpiresAt:         ch.DueDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if g.ExternalStatus == "" {
		g.ExternalStatus = ch.Status.String()
	}

	if ch.Card != nil {
		g.CardBrand = ch.Card.Brand
		g.CardLast4 = ch.Card.Last4
	}

	if ch.Bank != nil {
		g.BankName = ch.Bank.Bank
		g.BankReference = ch.Bank.CLABE
	}

	return s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		return s.charges.Insert(tx, g)
	})
}
