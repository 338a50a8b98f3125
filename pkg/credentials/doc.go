// Package credentials loads the server keystore.
//
// Java (JKS) and PKCS#12 keystores are supported. Any failure to load one
// leaves the
// bridge running with security disabled; the reason is logged and kept
// on the returned Store.
package credentials
