// Command sessionscribe queues locally captured game-session recordings and
// drives them through the summarization pipeline.
package main
