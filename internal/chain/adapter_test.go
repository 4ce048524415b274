package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int32
		want     string
	}{
		{"1", 6, "1000000"},
		{"0.5", 6, "500000"},
		{"123.456789", 6, "123456789"},
		{"1", 18, "1000000000000000000"},
		// 超过精度的尾数直接截断，不做四舍五入
		{"0.0000001", 6, "0"},
		{"0.00012345", 8, "12345"},
	}

	for _, c := range cases {
		amount, err := decimal.NewFromString(c.amount)
		if err != nil {
			t.Fatalf("解析金额 %s 失败: %v", c.amount, err)
		}
		got := toBaseUnits(amount, c.decimals)
		if got.String() != c.want {
			t.Errorf("toBaseUnits(%s, %d) = %s, 期望 %s", c.amount, c.decimals, got, c.want)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	units, _ := new(big.Int).SetString("123456789", 10)
	got := fromBaseUnits(units, 6)
	if !got.Equal(decimal.RequireFromString("123.456789")) {
		t.Errorf("fromBaseUnits(123456789, 6) = %s", got)
	}

	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	if !fromBaseUnits(wei, 18).Equal(decimal.NewFromInt(1)) {
		t.Errorf("18 位精度换算错误: %s", fromBaseUnits(wei, 18))
	}
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("9876.543210")
	back := fromBaseUnits(toBaseUnits(amount, 6), 6)
	if !back.Equal(amount) {
		t.Errorf("roundtrip 不一致: %s vs %s", back, amount)
	}
}
