// Package shell holds the infrastructure glue around the circulation coordinator:
// retrying of transactions that lost a concurrency conflict and, in the config
// subpackage, settings loading and database connection factories.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'infrastructure' layer.
package shell
