// Package mirror manages the ordered list of PyPI sources and the
// rotation state used to fall through them when one fails.
package mirror
