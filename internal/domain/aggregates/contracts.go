package aggregates

import "fmt"

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means aggregate write methods start and commit their own transactions.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy defines how aggregate contracts expose reads.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped allows only reads needed for invariant decisions in write flows.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries keeps listing and catalog queries on table repos.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// LockScope names the row an aggregate locks before mutating state.
type LockScope string

const (
	LockScopeCourse     LockScope = "course"
	LockScopeEnrollment LockScope = "enrollment"
	LockScopePayment    LockScope = "payment"
)

type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	LockScope        LockScope
	Notes            string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

// RequiresAggregateOwnedTx returns true when write transaction ownership is aggregate-owned.
func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Validate rejects contracts missing a name, a tx owner or a lock scope.
func (c Contract) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("aggregate contract: name is required")
	case c.WriteTxOwnership == "":
		return fmt.Errorf("aggregate contract %s: write tx ownership is required", c.Name)
	case c.LockScope == "":
		return fmt.Errorf("aggregate contract %s: lock scope is required", c.Name)
	}
	switch c.ReadPolicy {
	case ReadPolicyInvariantScoped, ReadPolicyTableRepoQueries:
		return nil
	default:
		return fmt.Errorf("aggregate contract %s: unknown read policy %q", c.Name, c.ReadPolicy)
	}
}

// Contracts lists every learning aggregate contract.
func Contracts() []Contract {
	return []Contract{
		CourseStructureAggregateContract,
		EnrollmentAggregateContract,
		ProgressAggregateContract,
		PaymentAggregateContract,
	}
}
