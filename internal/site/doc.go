// Package site builds the static listing page from the stored events.
//
// The page shows upcoming events when there are any, otherwise the most
// recent past ones. Output is index.html plus a fixed style.css whose link
// carries the build time as a query string so browsers never keep a stale
// stylesheet. An iCalendar feed of the listed events can be written too.
package site
