package aggregates

import "testing"

func TestLearningContractsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Contracts() {
		if err := c.Validate(); err != nil {
			t.Fatalf("contract invalid: %v", err)
		}
		if !c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s: expected aggregate-owned transactions", c.Name)
		}
		if seen[c.Name] {
			t.Fatalf("duplicate contract name %s", c.Name)
		}
		seen[c.Name] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 contracts, got %d", len(seen))
	}
}

func TestContractValidateRejectsIncomplete(t *testing.T) {
	c := Contract{Name: "x", WriteTxOwnership: WriteTxOwnedByAggregate, ReadPolicy: ReadPolicyInvariantScoped}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing lock scope to fail")
	}
	c.LockScope = LockScopeCourse
	c.ReadPolicy = "whatever"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown read policy to fail")
	}
}
