// Package main implements the prism command line.
//
// prism turns source product images into content-addressed variant sets
// under an asset root, records them in a catalog document, and pushes the
// canonical URL to an optional product record store. The resolve command
// runs the same fallback chain a rendering client uses.
//
// Commands load configuration once through commandContext; config init and
// config validate skip that step.
package main
