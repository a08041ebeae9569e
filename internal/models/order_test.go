package models

import (
	"testing"
	"time"
)

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"ready to out_for_delivery", StatusReady, StatusOutForDelivery, true},
		{"out_for_delivery to delivered", StatusOutForDelivery, StatusDelivered, true},
		{"skipping preparing", StatusConfirmed, StatusReady, false},
		{"skipping to delivered", StatusConfirmed, StatusDelivered, false},
		{"backwards", StatusReady, StatusPreparing, false},
		{"pending cannot advance directly", StatusPending, StatusPreparing, false},
		{"delivered is terminal", StatusDelivered, StatusPending, false},
		{"delivered to confirmed", StatusDelivered, StatusConfirmed, false},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"cancelled to delivered", StatusCancelled, StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAdvance(tt.from, tt.to); got != tt.want {
				t.Errorf("CanAdvance(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanCancel(t *testing.T) {
	tests := []struct {
		from OrderStatus
		want bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusPreparing, false},
		{StatusReady, false},
		{StatusOutForDelivery, false},
		{StatusDelivered, false},
		{StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			if got := CanCancel(tt.from); got != tt.want {
				t.Errorf("CanCancel(%s) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []OrderStatus{StatusDelivered, StatusCancelled} {
		if !IsTerminal(status) {
			t.Errorf("expected %s to be terminal", status)
		}
	}
	for _, status := range []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery} {
		if IsTerminal(status) {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestValidateCreateOrderRequest(t *testing.T) {
	valid := func() *CreateOrderRequest {
		return &CreateOrderRequest{
			CustomerID:        7,
			DeliveryAddressID: 3,
			Items: []CreateOrderItemRequest{
				{MenuItemID: 1, Quantity: 2},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr bool
	}{
		{"valid request", func(r *CreateOrderRequest) {}, false},
		{"missing customer", func(r *CreateOrderRequest) { r.CustomerID = 0 }, true},
		{"missing address", func(r *CreateOrderRequest) { r.DeliveryAddressID = 0 }, true},
		{"empty items", func(r *CreateOrderRequest) { r.Items = nil }, true},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, true},
		{"negative quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = -1 }, true},
		{"bad menu item id", func(r *CreateOrderRequest) { r.Items[0].MenuItemID = 0 }, true},
		{"negative redeem points", func(r *CreateOrderRequest) { r.RedeemPoints = -100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	date := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	got := GenerateOrderNumber(date, 7)
	want := "ORD_20260314_007"
	if got != want {
		t.Errorf("GenerateOrderNumber() = %s, want %s", got, want)
	}
}
