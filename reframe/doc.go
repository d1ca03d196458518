// Package reframe (re)classifies the semantic frames of every stored sentence.
//
// A Reframer walks the sentence store in id order, classifies each batch with
// an ai.FrameClassifier and appends the frames to the frame index. Failed
// classifications are retried with exponential backoff. Progress is written
// to an io.Writer with a smoothed rate and an estimate of the time left, and
// a checkpoint after every batch lets an interrupted run resume.
package reframe
