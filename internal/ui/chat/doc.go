// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the rigchat TUI.

The Model is a Bubble Tea model that keeps only widget state. Everything the
screen displays is read from session.State, which the generation and poll
packages update.

# Tick Loop

Init schedules a tick every Interval. Each tick calls the poll driver's Tick,
which drains pending notifications into the session, and then copies the
current document or transcript into the viewport.

# Input

Enter sends the prompt field when the session is idle. The busy flag is set
here, before the submission starts, and cleared only by the idle
notification at the end of the request.

Input starting with "/" runs a slash command instead (commands.go):

	/model NAME    select a model
	/system NAME   select a system prompt ("none" clears it)
	/temp F        set the temperature, 0 to 2
	/think         toggle the thinking flag
	/filter        toggle the content filter
	/log           toggle history logging
	/context       toggle conversation context
	/host H:P      point the client at another server
	/models        list and refresh the model inventory
	/prompts       list system prompts
	/history       toggle the transcript view
	/clear         clear the prompt field

Ctrl+C quits.
*/
package chat
