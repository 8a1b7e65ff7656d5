// Package core holds the data model, capability interfaces, configuration,
// and error taxonomy shared by the codec, carrier, session, dispatch, and
// auth packages. It owns no I/O of its own.
package core
