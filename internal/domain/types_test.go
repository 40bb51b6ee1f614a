package domain

import "testing"

func TestOrderStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusCompleted, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusPaid, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		if !status.IsTerminal() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusShipped} {
		if status.IsTerminal() {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	if !OrderStatusPaid.Valid() {
		t.Fatal("expected PAID to be valid")
	}
	if OrderStatus("REFUNDED").Valid() {
		t.Fatal("expected REFUNDED to be invalid")
	}
}

func TestOrderStatusHoldsStock(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusShipped} {
		if !status.HoldsStock() {
			t.Errorf("expected %s to hold stock", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		if status.HoldsStock() {
			t.Errorf("expected %s not to hold stock", status)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"seller":  RoleSeller,
		"SELLER":  RoleSeller,
		" admin ": RoleAdmin,
		"":        RoleCustomer,
		"unknown": RoleCustomer,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Errorf("ParseRole(%q): expected %s, got %s", input, want, got)
		}
	}
}

func TestOrderContainsRefs(t *testing.T) {
	order := Order{
		ProductRefs: []string{"prd_a", "prd_b"},
		SellerRefs:  []string{"seller-1"},
	}
	if !order.ContainsProduct("prd_b") {
		t.Fatal("expected order to contain prd_b")
	}
	if order.ContainsProduct("prd_c") {
		t.Fatal("expected order not to contain prd_c")
	}
	if !order.ContainsSeller("seller-1") {
		t.Fatal("expected order to contain seller-1")
	}
	if order.ContainsSeller("seller-2") {
		t.Fatal("expected order not to contain seller-2")
	}
}
