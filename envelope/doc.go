// Package envelope builds SOAP request envelopes and flattens SOAP responses
// into Node trees. It performs no I/O beyond reading the supplied reader and
// has no dependency on the rest of the module.
package envelope
