//go:build termplexdebug

package layout

const debugInvariants = true
