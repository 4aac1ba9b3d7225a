// Package core contains the SOAP client contracts and the invoke and poll
// orchestration. Transport adapters depend on this package; core must not
// depend on transport-specific adapters.
package core
