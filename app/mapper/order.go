package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/service"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/types"
)

func OrderPaymentToResponse(item *entity.Order) *types.OrderPayment {
	if item == nil {
		return nil
	}

	items := make([]*types.OrderItem, 0, len(item.Items))
	for _, orderItem := range item.Items {
		items = append(items, &types.OrderItem{
			ProductId:   derefString(orderItem.ProductID),
			VariantId:   derefString(orderItem.VariantID),
			ProductName: orderItem.ProductName,
			Quantity:    orderItem.Quantity,
			UnitPrice:   orderItem.UnitPrice.StringFixed(2),
			TotalPrice:  orderItem.TotalPrice().StringFixed(2),
		})
	}

	return &types.OrderPayment{
		Id:            item.ID,
		OrderNumber:   item.OrderNumber,
		Status:        item.Status,
		PaymentStatus: item.PaymentStatus,
		TotalAmount:   item.TotalAmount.StringFixed(2),
		Items:         items,
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentFormToResponse(form *service.PaymentForm) *types.PaymentFormResponse {
	if form == nil || form.Request == nil {
		return nil
	}

	fields := form.Request.FormFields()
	data := make([]*types.FormField, 0, len(fields))
	for _, field := range fields {
		data = append(data, &types.FormField{Name: field.Name, Value: field.Value})
	}

	return &types.PaymentFormResponse{
		PaymentUrl:  form.URL,
		PaymentData: data,
		Signature:   form.Request.Signature,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
