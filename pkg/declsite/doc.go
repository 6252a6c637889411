// Package declsite reports where a function of the running program is
// declared in source, by reading the debug information of the modules
// loaded into the process.
//
// Resolution is best effort. Modules that cannot be read or parsed, and
// functions without usable debug information, are skipped; a lookup
// either finds a site or finds nothing, and never fails.
//
//	site, ok := declsite.DeclarationOf(handleRequest)
//	if ok {
//		fmt.Println(site) // server/handler.go:42
//	}
//
// Lookups are expensive: every call reads the loaded modules from disk and
// walks their debug information. Cache results when resolving repeatedly.
// For custom matching use Scan with a handler that inspects every function.
package declsite
