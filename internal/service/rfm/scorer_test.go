package rfm

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ignite/retail-rfm/internal/domain"
)

func TestNTile_BucketSizes(t *testing.T) {
	for n := 0; n <= 21; n++ {
		buckets := NTile(n, Quartiles)
		if len(buckets) != n {
			t.Fatalf("n=%d: got %d positions", n, len(buckets))
		}

		sizes := map[int]int{}
		prev := 1
		for _, b := range buckets {
			if b < prev {
				t.Fatalf("n=%d: buckets not ordered: %v", n, buckets)
			}
			prev = b
			sizes[b]++
		}

		used := min(n, Quartiles)
		for b := 1; b <= used; b++ {
			want := n / Quartiles
			if b <= n%Quartiles {
				want++
			}
			if sizes[b] != want {
				t.Errorf("n=%d bucket %d: size %d, want %d", n, b, sizes[b], want)
			}
		}
		for b := used + 1; b <= Quartiles; b++ {
			if sizes[b] != 0 {
				t.Errorf("n=%d: bucket %d should be unused", n, b)
			}
		}
	}
}

func TestNTile_Examples(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{3, []int{1, 2, 3}},
		{5, []int{1, 1, 2, 3, 4}},
		{6, []int{1, 1, 2, 2, 3, 4}},
		{7, []int{1, 1, 2, 2, 3, 3, 4}},
		{8, []int{1, 1, 2, 2, 3, 3, 4, 4}},
	}
	for _, tt := range tests {
		got := NTile(tt.n, Quartiles)
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("NTile(%d) = %v, want %v", tt.n, got, tt.want)
				break
			}
		}
	}
}

func customer(id int64, recency, frequency int, monetary string) domain.CustomerRFM {
	return domain.CustomerRFM{
		CustomerID: id,
		Recency:    recency,
		Frequency:  frequency,
		Monetary:   decimal.RequireFromString(monetary),
	}
}

func TestScore_Directions(t *testing.T) {
	pop := []domain.CustomerRFM{
		customer(1, 300, 1, "10.00"),
		customer(2, 100, 2, "20.00"),
		customer(3, 30, 5, "300.00"),
		customer(4, 1, 9, "5000.00"),
	}
	scored, err := Score(pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	want := map[int64][3]int{
		1: {1, 1, 1},
		2: {2, 2, 2},
		3: {3, 3, 3},
		4: {4, 4, 4},
	}
	for _, s := range scored {
		got := [3]int{s.RScore, s.FScore, s.MScore}
		if got != want[s.CustomerID] {
			t.Errorf("customer %d scores = %v, want %v", s.CustomerID, got, want[s.CustomerID])
		}
	}
	if scored[3].RFMCode() != "444" {
		t.Errorf("RFMCode = %q", scored[3].RFMCode())
	}
}

func TestScore_KeepsInputOrder(t *testing.T) {
	pop := []domain.CustomerRFM{
		customer(9, 5, 1, "1.00"),
		customer(3, 50, 2, "2.00"),
	}
	scored, err := Score(pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored[0].CustomerID != 9 || scored[1].CustomerID != 3 {
		t.Errorf("order changed: %d, %d", scored[0].CustomerID, scored[1].CustomerID)
	}
	// n=2 uses buckets 1 and 2 only
	if scored[0].RScore != 2 || scored[1].RScore != 1 {
		t.Errorf("r scores = %d, %d", scored[0].RScore, scored[1].RScore)
	}
}

func TestScore_TiesBrokenByCustomerID(t *testing.T) {
	// all equal: order falls back to customer id, so ids 1,2 land in
	// buckets 1,2 and so on, regardless of input order
	pop := []domain.CustomerRFM{
		customer(4, 10, 1, "5.00"),
		customer(2, 10, 1, "5.00"),
		customer(3, 10, 1, "5.00"),
		customer(1, 10, 1, "5.00"),
	}
	scored, err := Score(pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for _, s := range scored {
		if s.RScore != int(s.CustomerID) || s.FScore != int(s.CustomerID) || s.MScore != int(s.CustomerID) {
			t.Errorf("customer %d scored %s", s.CustomerID, s.RFMCode())
		}
	}
}

func TestScore_ScoresInRange(t *testing.T) {
	var pop []domain.CustomerRFM
	for i := 1; i <= 37; i++ {
		pop = append(pop, customer(int64(i), (i*7)%31, i%5+1, decimal.NewFromInt(int64(i*13%17+1)).String()))
	}
	scored, err := Score(pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	counts := map[int]int{}
	for _, s := range scored {
		for _, q := range []int{s.RScore, s.FScore, s.MScore} {
			if q < 1 || q > 4 {
				t.Fatalf("score out of range: %s", s.RFMCode())
			}
		}
		counts[s.MScore]++
	}
	// 37 = 10 + 9 + 9 + 9
	if counts[1] != 10 || counts[2] != 9 || counts[3] != 9 || counts[4] != 9 {
		t.Errorf("M bucket sizes = %v", counts)
	}
}

func TestScore_Empty(t *testing.T) {
	_, err := Score(nil)
	if !errors.Is(err, ErrEmptyPopulation) {
		t.Errorf("expected ErrEmptyPopulation, got %v", err)
	}
}
