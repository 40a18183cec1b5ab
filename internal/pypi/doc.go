// Package pypi fetches package release metadata from the official
// index or a mirror, rotating through candidates until one answers
// with valid JSON.
package pypi
