// Package testing provides test utilities, builders, and fixtures for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - Fixtures: Grid'5000 jobs, plannings and Distem inventories for common scenarios
//   - MockScheduler, MockDeployer, MockGateway, MockInventory: shared testify mocks
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithSite("nancy").
//	    WithNodes(10, 100).
//	    Build()
//
//	job := testing.RunningJob("nancy", "GoogleDataCenter", testing.Hosts("graphene", "nancy", 10), "10.144.0.0/22")
package testing
