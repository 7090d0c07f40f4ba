// Command documind runs the DocuMind document editor backend.
//
// @title           DocuMind API
// @version         1.0
// @description     Document editor backend: documents, sources and AI writing assistance.
// @BasePath        /api/v1
// @schemes         http https
package main

func main() {
	Execute()
}
