// ABOUTME: Input package
// ABOUTME: Commands shared by the pipeline and the user interfaces
// Package input defines the commands a user can send to a playing pipeline
// and the Handler interface the render loop polls for them.
package input
