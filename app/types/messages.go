package types

type CreatePaymentRequest struct {
	OrderId string `json:"order_id"`
}

func (x *CreatePaymentRequest) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

type GetOrderPaymentRequest struct {
	Reference string `json:"reference"`
}

func (x *GetOrderPaymentRequest) GetReference() string {
	if x != nil {
		return x.Reference
	}
	return ""
}

type HandleNotificationRequest struct {
	RequestId string `json:"request_id"`
	RemoteIp  string `json:"remote_ip"`
	Body      []byte `json:"-"`
}

func (x *HandleNotificationRequest) GetRequestId() string {
	if x != nil {
		return x.RequestId
	}
	return ""
}

func (x *HandleNotificationRequest) GetRemoteIp() string {
	if x != nil {
		return x.RemoteIp
	}
	return ""
}

func (x *HandleNotificationRequest) GetBody() []byte {
	if x != nil {
		return x.Body
	}
	return nil
}

type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PaymentFormResponse struct {
	PaymentUrl  string       `json:"payment_url"`
	PaymentData []*FormField `json:"payment_data"`
	Signature   string       `json:"signature"`
}

type OrderItem struct {
	ProductId   string `json:"product_id,omitempty"`
	VariantId   string `json:"variant_id,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
}

type OrderPayment struct {
	Id            string       `json:"id"`
	OrderNumber   string       `json:"order_number"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	TotalAmount   string       `json:"total_amount"`
	Items         []*OrderItem `json:"items"`
	UpdatedAt     string       `json:"updated_at"`
}

type OrderPaymentResponse struct {
	Order *OrderPayment `json:"order"`
}

type NotificationAckResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
