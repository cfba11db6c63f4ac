// Package attendance records who came through the door each day.
//
// The table holds at most one row per (name, date); the first mark of the
// day wins. Marker sits in front of the table and drops repeat marks for a
// name seen within the re-mark delay, so a face held in front of the
// camera does not hit the database on every frame.
package attendance
