// Package textutil turns free-form labels into path tokens and lookup keys.
package textutil
