// Package httpapi wires the engine into the HTTP routes served by
// authcore-server.
package httpapi
