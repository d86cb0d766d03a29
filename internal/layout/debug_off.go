//go:build !termplexdebug

package layout

const debugInvariants = false
