// Package main E-Code Executor API
//
//	@title						E-Code Executor API
//	@version					1.0
//	@description				Self-hostable code execution sidecar for the E-Code platform
//
//	@contact.name				E-Code Support
//	@contact.url				https://e-code.dev/support
//
//	@license.name				Proprietary
//	@license.url				https://e-code.dev/license
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Execution
//	@tag.description			Sandboxed code execution
package main
