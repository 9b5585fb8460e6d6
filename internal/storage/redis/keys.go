package redis

import (
	"fmt"

	"github.com/whisperhq/whisperd/internal/model"
)

// Key prefix for all whisperd data
const keyPrefix = "whisperd"

// Key generation functions for each entity type

// streamKey returns the Redis key for a Stream
func streamKey(id model.StreamID) string {
	return fmt.Sprintf("%s:stream:%s", keyPrefix, id)
}

// streamsIndexKey returns the Redis key for the SET of all stream IDs
func streamsIndexKey() string {
	return fmt.Sprintf("%s:idx:streams", keyPrefix)
}

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// credentialKey returns the Redis key for the username -> credential record
func credentialKey(username string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, username)
}

// puppetKey returns the Redis key for a Puppet
func puppetKey(id model.PuppetID) string {
	return fmt.Sprintf("%s:puppet:%s", keyPrefix, id)
}

// puppetNameIndexKey returns the Redis key for the (stream, name) -> puppet_id index
func puppetNameIndexKey(streamID model.StreamID, name string) string {
	return fmt.Sprintf("%s:idx:puppet_name:%s:%s", keyPrefix, streamID, name)
}

// puppetsForStreamKey returns the Redis key for the ZSET of puppets in a
// stream, scored by last_used for recency ordering
func puppetsForStreamKey(streamID model.StreamID) string {
	return fmt.Sprintf("%s:idx:puppets_for_stream:%s", keyPrefix, streamID)
}

// handlerKey returns the Redis key for a HandlerAssociation
func handlerKey(puppetID model.PuppetID, userID model.UserID) string {
	return fmt.Sprintf("%s:handler:%s:%s", keyPrefix, puppetID, userID)
}

// handlersForPuppetKey returns the Redis key for the SET of user IDs handling a puppet
func handlersForPuppetKey(puppetID model.PuppetID) string {
	return fmt.Sprintf("%s:idx:handlers_for_puppet:%s", keyPrefix, puppetID)
}

// handlersForUserKey returns the Redis key for the SET of puppet IDs a user handles
func handlersForUserKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:handlers_for_user:%s", keyPrefix, userID)
}

// recentHandlersKey returns the Redis key for the SET of "puppet/user"
// members with handler_type=recent, used by the stale-handler sweep
func recentHandlersKey() string {
	return fmt.Sprintf("%s:idx:recent_handlers", keyPrefix)
}

// recentHandlerMember encodes a (puppet, user) pair as a set member
func recentHandlerMember(puppetID model.PuppetID, userID model.UserID) string {
	return fmt.Sprintf("%s/%s", puppetID, userID)
}

// messageKey returns the Redis key for a Message
func messageKey(id model.MessageID) string {
	return fmt.Sprintf("%s:message:%s", keyPrefix, id)
}

// messagesForStreamKey returns the Redis key for the ZSET of messages in a
// stream, scored by sent_at
func messagesForStreamKey(streamID model.StreamID) string {
	return fmt.Sprintf("%s:idx:messages_for_stream:%s", keyPrefix, streamID)
}

// deliveriesKey returns the Redis key for the SET of user IDs a message was delivered to
func deliveriesKey(messageID model.MessageID) string {
	return fmt.Sprintf("%s:idx:deliveries:%s", keyPrefix, messageID)
}

// personaKey returns the Redis key for a Persona
func personaKey(id model.PersonaID) string {
	return fmt.Sprintf("%s:persona:%s", keyPrefix, id)
}

// personaNameIndexKey returns the Redis key for the (user, name) -> persona_id index
func personaNameIndexKey(userID model.UserID, name string) string {
	return fmt.Sprintf("%s:idx:persona_name:%s:%s", keyPrefix, userID, name)
}

// personasForUserKey returns the Redis key for the ZSET of a user's personas, scored by created_at
func personasForUserKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:personas_for_user:%s", keyPrefix, userID)
}

// agentClaimKey returns the Redis key for an AgentClaim
func agentClaimKey(agentName string) string {
	return fmt.Sprintf("%s:agent_claim:%s", keyPrefix, agentName)
}

// agentCodeIndexKey returns the Redis key for the verification code -> agent name index
func agentCodeIndexKey(code string) string {
	return fmt.Sprintf("%s:idx:agent_code:%s", keyPrefix, code)
}

// agentKeyIndexKey returns the Redis key for the API key -> agent name index
func agentKeyIndexKey(apiKey string) string {
	return fmt.Sprintf("%s:idx:agent_key:%s", keyPrefix, apiKey)
}
