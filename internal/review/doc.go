// Package review runs one live flashcard review on a pair of smart glasses.
//
// A Session owns the queue of due cards for one identity, interprets final
// voice transcriptions and gestures as commands, rates cards through the
// scheduling engine and persists the result. All state changes are submitted
// to a task.Submitter so that, with a single-worker lane, they happen one at
// a time in the order the events arrived.
package review
