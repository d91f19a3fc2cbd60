/*
Package clip plays pre-loaded audio or MIDI material in sync with a project
timeline.

Concept

A clip is driven from two contexts:

    Control context - issues commands: play, pause, stop, record, seek;
    Real-time context - calls Fill once per block of a fixed size;

Commands never produce sound themselves. They change the clip State and the
next Fill call computes which frames of material the block carries. The
clip keeps a single source-relative frame position. It is negative during
count-in and is advanced only by the number of source frames consumed from
the supply chain, so tempo changes never make playback skip or repeat
material.

States

    Stopped - nothing is played;
    ScheduledOrPlaying - waiting for the scheduled position or playing;
    Suspending - fading out before a stop, pause or retrigger;
    Paused - stopped with a position to resume from;

Suspending always has a successor: it counts down the frames of a short
fade and then switches to the state its reason asks for.

Supply chain

Material is read through supply.Chain: section, looper and stretcher. The
clip configures the chain before every block: loop behavior follows the
repetition and scheduled stops, the stretcher follows the tempo of the
timeline.

Clip is not safe for concurrent use. The slot package serializes commands
and real-time access.
*/
package clip
