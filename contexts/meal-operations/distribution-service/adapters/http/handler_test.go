package httpadapter

import "testing"

func TestUnitForFood(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{name: "Jollof Rice", want: "kg"},
		{name: "beans porridge", want: "kg"},
		{name: "Palm Oil", want: "liters"},
		{name: "Orange Juice", want: "liters"},
		{name: "Fried Chicken", want: "pieces"},
		{name: "bread rolls", want: "pieces"},
		{name: "Egusi Soup", want: "serving"},
		{name: "   ", want: "serving"},
		{name: "", want: "serving"},
	} {
		if got := UnitForFood(tc.name); got != tc.want {
			t.Errorf("UnitForFood(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
