package provider

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
	LiveProcessURL    = "https://www.payfast.co.za/eng/process"

	defaultItemName  = "Storefront Order"
	defaultFirstName = "Customer"

	ReturnPath = "/payment/success"
	CancelPath = "/payment/cancel"
	NotifyPath = "/payment/notify"
)

type PayFastConfig struct {
	MerchantID         string
	MerchantKey        string
	Passphrase         string
	SignatureAlgorithm string
	Sandbox            bool
	BaseURL            string
	ItemName           string
	ValidateSourceIP   bool
	AllowedIPs         []string
}

type PayFastGateway struct {
	cfg        PayFastConfig
	codec      *SignatureCodec
	allowedIPs map[string]struct{}
}

func NewPayFastGateway(cfg PayFastConfig) (*PayFastGateway, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, fmt.Errorf("%w: merchant id is required", ErrConfiguration)
	}
	if strings.TrimSpace(cfg.MerchantKey) == "" {
		return nil, fmt.Errorf("%w: merchant key is required", ErrConfiguration)
	}
	if strings.TrimSpace(cfg.Passphrase) == "" {
		return nil, fmt.Errorf("%w: passphrase is required", ErrConfiguration)
	}
	codec, err := NewSignatureCodec(Algorithm(cfg.SignatureAlgorithm))
	if err != nil {
		return nil, fmt.Errorf("%w: %v (supported: %s)", ErrConfiguration, err, strings.Join(defaultRegistry.Supported(), ", "))
	}
	if strings.TrimSpace(cfg.ItemName) == "" {
		cfg.ItemName = defaultItemName
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	allowed := make(map[string]struct{}, len(cfg.AllowedIPs))
	for _, ip := range cfg.AllowedIPs {
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil {
			allowed[parsed.String()] = struct{}{}
		}
	}

	return &PayFastGateway{cfg: cfg, codec: codec, allowedIPs: allowed}, nil
}

func (g *PayFastGateway) Codec() *SignatureCodec {
	return g.codec
}

func PaymentURL(sandbox bool) string {
	if sandbox {
		return SandboxProcessURL
	}
	return LiveProcessURL
}

func (g *PayFastGateway) PaymentURL() string {
	return PaymentURL(g.cfg.Sandbox)
}

func (g *PayFastGateway) BuildPaymentRequest(input *PaymentInput) (*PaymentRequest, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidPaymentInput)
	}
	if strings.TrimSpace(input.OrderID) == "" || strings.TrimSpace(input.OrderNumber) == "" {
		return nil, fmt.Errorf("%w: order id and order number are required", ErrInvalidPaymentInput)
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrInvalidPaymentInput)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPaymentInput)
	}

	first, last := splitName(input.CustomerName)
	req := &PaymentRequest{
		MerchantID:      g.cfg.MerchantID,
		MerchantKey:     g.cfg.MerchantKey,
		ReturnURL:       g.cfg.BaseURL + ReturnPath,
		CancelURL:       g.cfg.BaseURL + CancelPath,
		NotifyURL:       g.cfg.BaseURL + NotifyPath,
		NameFirst:       first,
		NameLast:        last,
		EmailAddress:    strings.TrimSpace(input.CustomerEmail),
		MPaymentID:      strings.TrimSpace(input.OrderNumber),
		Amount:          FormatAmount(input.Amount),
		ItemName:        g.cfg.ItemName,
		ItemDescription: strings.TrimSpace(input.Description),
		CustomStr1:      strings.TrimSpace(input.OrderID),
	}
	if input.CustomerPhone != nil {
		req.CellNumber = strings.TrimSpace(*input.CustomerPhone)
	}

	req.Signature = g.codec.Compute(req.Fields(), g.cfg.Passphrase)
	return req, nil
}

// FormatAmount renders exactly two fraction digits, rounding half away from zero.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func splitName(name string) (string, string) {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return defaultFirstName, ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

func (g *PayFastGateway) ParseNotification(body []byte) (*Notification, error) {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedNotification)
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}

	fields := make(map[string]string, len(values))
	signature := ""
	for key, items := range values {
		if len(items) != 1 {
			return nil, fmt.Errorf("%w: field %q repeated", ErrMalformedNotification, key)
		}
		if key == SignatureField {
			signature = items[0]
			continue
		}
		fields[key] = items[0]
	}

	n := &Notification{
		PaymentID:        strings.TrimSpace(fields["m_payment_id"]),
		PaymentStatus:    strings.TrimSpace(fields["payment_status"]),
		Signature:        strings.TrimSpace(signature),
		CustomStr1:       strings.TrimSpace(fields["custom_str1"]),
		AmountGross:      strings.TrimSpace(fields["amount_gross"]),
		GatewayPaymentID: strings.TrimSpace(fields["pf_payment_id"]),
		Fields:           fields,
	}
	switch {
	case n.Signature == "":
		return nil, fmt.Errorf("%w: signature is required", ErrMalformedNotification)
	case n.PaymentID == "":
		return nil, fmt.Errorf("%w: m_payment_id is required", ErrMalformedNotification)
	case n.PaymentStatus == "":
		return nil, fmt.Errorf("%w: payment_status is required", ErrMalformedNotification)
	}
	return n, nil
}

func (g *PayFastGateway) VerifyNotification(n *Notification) bool {
	if n == nil {
		return false
	}
	return g.codec.Verify(n.Fields, n.Signature, g.cfg.Passphrase)
}

func ClassifyStatus(status string) StatusClass {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETE":
		return StatusSettledSuccess
	case "FAILED", "CANCELLED":
		return StatusSettledFailure
	default:
		return StatusUnrecognized
	}
}

func (g *PayFastGateway) SourceValidationEnabled() bool {
	return g.cfg.ValidateSourceIP
}

// SourceAllowed reports whether a notification from ip may be processed.
// Everything is allowed while source validation is disabled.
func (g *PayFastGateway) SourceAllowed(ip string) bool {
	if !g.cfg.ValidateSourceIP {
		return true
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	_, ok := g.allowedIPs[parsed.String()]
	return ok
}
