// Package api exposes the health and metrics HTTP listener of newslinker.
package api
