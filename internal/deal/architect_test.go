package deal

import (
	"errors"
	"sort"
	"testing"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func demand(v float64) *float64 { return &v }

func componentSet(cs []domain.DealComponent) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreatePackageSoftwareValuation(t *testing.T) {
	a := NewArchitect(DefaultPolicy())
	asset := domain.Asset{
		ID:       "asset-1",
		Type:     domain.AssetTypeSoftware,
		Metadata: domain.AssetMetadata{Demand: demand(1.2)},
	}

	pkg, err := a.CreatePackage(asset, domain.SellerPreferences{OpenToEquity: true}, 15000)
	if err != nil {
		t.Fatalf("CreatePackage() error: %v", err)
	}
	if pkg.Valuation != 27000 {
		t.Errorf("Valuation = %v, want 27000", pkg.Valuation)
	}
	if pkg.Strategy.InitialPrice != 18900 {
		t.Errorf("InitialPrice = %v, want 18900", pkg.Strategy.InitialPrice)
	}
	if pkg.AssetID != "asset-1" {
		t.Errorf("AssetID = %q, want asset-1", pkg.AssetID)
	}
	if pkg.Terms.NonCompeteMonths != 24 {
		t.Errorf("NonCompeteMonths = %d, want 24 for software", pkg.Terms.NonCompeteMonths)
	}
}

func TestValuationByType(t *testing.T) {
	tests := []struct {
		name      string
		assetType domain.AssetType
		demand    *float64
		base      float64
		want      float64
	}{
		{"software no demand", domain.AssetTypeSoftware, nil, 1000, 1500},
		{"data", domain.AssetTypeData, nil, 1000, 2000},
		{"brand", domain.AssetTypeBrand, nil, 1000, 800},
		{"unknown type", domain.AssetType("patent"), nil, 1000, 1000},
		{"data with demand", domain.AssetTypeData, demand(0.5), 1000, 1000},
		{"rounds half up", domain.AssetTypeBrand, nil, 1000.625, 801},
		{"zero base", domain.AssetTypeSoftware, demand(3), 0, 0},
	}

	a := NewArchitect(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := domain.Asset{Type: tt.assetType, Metadata: domain.AssetMetadata{Demand: tt.demand}}
			pkg, err := a.CreatePackage(asset, domain.SellerPreferences{}, tt.base)
			if err != nil {
				t.Fatalf("CreatePackage() error: %v", err)
			}
			if pkg.Valuation != tt.want {
				t.Errorf("Valuation = %v, want %v", pkg.Valuation, tt.want)
			}
		})
	}
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name   string
		equity bool
		want   []domain.DealComponent
	}{
		{
			name:   "open to equity",
			equity: true,
			want: []domain.DealComponent{
				domain.ComponentCash, domain.ComponentEquity, domain.ComponentRoyalty,
				domain.ComponentIPLicense, domain.ComponentConsulting,
			},
		},
		{
			name:   "cash only seller still gets consulting",
			equity: false,
			want: []domain.DealComponent{
				domain.ComponentCash, domain.ComponentRoyalty,
				domain.ComponentIPLicense, domain.ComponentConsulting,
			},
		},
	}

	a := NewArchitect(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := domain.Asset{Type: domain.AssetTypeSoftware}
			pkg, err := a.CreatePackage(asset, domain.SellerPreferences{OpenToEquity: tt.equity}, 100)
			if err != nil {
				t.Fatalf("CreatePackage() error: %v", err)
			}
			got, want := componentSet(pkg.Components), componentSet(tt.want)
			if !equalStrings(got, want) {
				t.Errorf("components = %v, want %v", got, want)
			}
		})
	}
}

func TestConsultingCanBeGated(t *testing.T) {
	p := DefaultPolicy()
	p.ConsultingAlways = false
	pkg, err := NewArchitect(p).CreatePackage(domain.Asset{Type: domain.AssetTypeData}, domain.SellerPreferences{}, 100)
	if err != nil {
		t.Fatalf("CreatePackage() error: %v", err)
	}
	if pkg.HasComponent(domain.ComponentConsulting) {
		t.Error("CONSULTING present with ConsultingAlways=false")
	}
}

func TestTargetBuyers(t *testing.T) {
	tests := []struct {
		assetType domain.AssetType
		want      []string
	}{
		{domain.AssetTypeSoftware, []string{"INDUSTRY", "STRATEGIC", "VC"}},
		{domain.AssetTypeData, []string{"INDUSTRY", "STRATEGIC", "VC"}},
		{domain.AssetTypeBrand, []string{"COMPETITOR", "STRATEGIC", "VC"}},
		{domain.AssetType("music"), []string{"VC"}},
	}

	a := NewArchitect(DefaultPolicy())
	for _, tt := range tests {
		t.Run(string(tt.assetType), func(t *testing.T) {
			pkg, err := a.CreatePackage(domain.Asset{Type: tt.assetType}, domain.SellerPreferences{}, 100)
			if err != nil {
				t.Fatalf("CreatePackage() error: %v", err)
			}
			got := make([]string, 0, len(pkg.Strategy.TargetBuyers))
			for _, b := range pkg.Strategy.TargetBuyers {
				got = append(got, string(b))
			}
			sort.Strings(got)
			if !equalStrings(got, tt.want) {
				t.Errorf("target buyers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargetBuyersDoNotAliasPolicy(t *testing.T) {
	p := DefaultPolicy()
	a := NewArchitect(p)
	pkg, _ := a.CreatePackage(domain.Asset{Type: domain.AssetTypeData}, domain.SellerPreferences{}, 100)
	pkg.Strategy.TargetBuyers[0] = "MUTATED"

	if p.TargetBuyers[domain.AssetTypeData][0] != domain.BuyerStrategic {
		t.Error("mutating a package's target buyers changed the policy table")
	}
}

func TestContractTerms(t *testing.T) {
	a := NewArchitect(DefaultPolicy())
	pkg, err := a.CreatePackage(domain.Asset{Type: domain.AssetTypeBrand}, domain.SellerPreferences{MinCash: 500}, 1000.01)
	if err != nil {
		t.Fatalf("CreatePackage() error: %v", err)
	}
	terms := pkg.Terms

	if !terms.EscrowRequired {
		t.Error("EscrowRequired = false, want true")
	}
	if terms.NonCompeteMonths != 12 {
		t.Errorf("NonCompeteMonths = %d, want 12", terms.NonCompeteMonths)
	}
	if terms.IPTransferTrigger != "FULL_PAYMENT" {
		t.Errorf("IPTransferTrigger = %q", terms.IPTransferTrigger)
	}
	if terms.DisputeResolution != "ARBITRATION" {
		t.Errorf("DisputeResolution = %q", terms.DisputeResolution)
	}
	if terms.MinimumCash != 500 {
		t.Errorf("MinimumCash = %v, want 500", terms.MinimumCash)
	}

	wantPct := []int{30, 30, 20, 20}
	if len(terms.PaymentSchedule) != len(wantPct) {
		t.Fatalf("schedule has %d installments, want %d", len(terms.PaymentSchedule), len(wantPct))
	}
	var sum float64
	for i, inst := range terms.PaymentSchedule {
		if inst.Percent != wantPct[i] {
			t.Errorf("installment %d percent = %d, want %d", i, inst.Percent, wantPct[i])
		}
		sum += inst.Amount
	}
	// 1000.01 * 0.8 rounds to 800.
	if sum != pkg.Valuation {
		t.Errorf("installments sum to %v, want valuation %v", sum, pkg.Valuation)
	}
	if terms.PaymentSchedule[0].Amount != 240 {
		t.Errorf("first installment = %v, want 240", terms.PaymentSchedule[0].Amount)
	}
}

func TestScheduleRemainderGoesToLastInstallment(t *testing.T) {
	got := schedule([]Tranche{{"a", 33}, {"b", 33}, {"c", 34}}, 100.01)
	if got[0].Amount != 33 || got[1].Amount != 33 {
		t.Errorf("leading installments = %v, %v, want 33, 33", got[0].Amount, got[1].Amount)
	}
	if got[2].Amount != 34.01 {
		t.Errorf("last installment = %v, want 34.01", got[2].Amount)
	}
}

func TestRestartConditionsAreAdvisoryCopies(t *testing.T) {
	p := DefaultPolicy()
	pkg, _ := NewArchitect(p).CreatePackage(domain.Asset{Type: domain.AssetTypeSoftware}, domain.SellerPreferences{}, 10)
	want := []domain.RestartCondition{
		domain.ConditionNoBids24h,
		domain.ConditionTopBidBelowValuation,
		domain.ConditionLessThanThreeBidders,
	}
	if len(pkg.Strategy.RestartConditions) != len(want) {
		t.Fatalf("RestartConditions = %v, want %v", pkg.Strategy.RestartConditions, want)
	}
	for i := range want {
		if pkg.Strategy.RestartConditions[i] != want[i] {
			t.Errorf("RestartConditions[%d] = %q, want %q", i, pkg.Strategy.RestartConditions[i], want[i])
		}
	}
	pkg.Strategy.RestartConditions[0] = "CHANGED"
	if p.RestartConditions[0] != domain.ConditionNoBids24h {
		t.Error("package restart conditions alias the policy slice")
	}
}

func TestCreatePackageRejectsBadInput(t *testing.T) {
	a := NewArchitect(DefaultPolicy())

	if _, err := a.CreatePackage(domain.Asset{Type: domain.AssetTypeData}, domain.SellerPreferences{}, -1); err == nil {
		t.Error("negative base valuation accepted")
	}
	if _, err := a.CreatePackage(domain.Asset{Type: domain.AssetTypeData}, domain.SellerPreferences{MinCash: -5}, 10); err == nil {
		t.Error("negative minimum cash accepted")
	}

	_, err := a.CreatePackage(domain.Asset{
		Type:     domain.AssetTypeData,
		Metadata: domain.AssetMetadata{Demand: demand(0)},
	}, domain.SellerPreferences{}, 10)
	var invalid *domain.InvalidAssetError
	if !errors.As(err, &invalid) {
		t.Fatalf("zero demand error = %v, want *InvalidAssetError", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("DefaultPolicy().Validate() = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"split not 100", func(p *Policy) { p.Terms.PaymentSplit = []Tranche{{"all", 90}} }},
		{"zero ratio", func(p *Policy) { p.InitialPriceRatio = 0 }},
		{"negative multiplier", func(p *Policy) { p.TypeMultipliers[domain.AssetTypeData] = -1 }},
		{"zero demand", func(p *Policy) { p.DefaultDemand = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
