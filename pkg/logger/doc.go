// ABOUTME: Logging package for reel components
// ABOUTME: Provides leveled, prefixed, colorized log output
// Package logger provides leveled logging.
//
// Components accept a Writer and usually wrap it with WithPrefix so every
// entry is tagged with the component name:
//
//	lh, err := logger.New(logger.Info, []logger.Destination{logger.DestinationStdout}, "")
//	l := logger.WithPrefix(lh, "pipeline")
//	l.Log(logger.Info, "loaded %s", url)
package logger
