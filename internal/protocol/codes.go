package protocol

// Code tags every wire message. Client and server codes are two disjoint
// closed catalogs; the numeric ranges never overlap so a misdirected message
// is detectable on sight.
type Code int32

// Client -> Server
const (
	ClientPing Code = iota + 1
	ClientName
	ClientStartRound
	ClientSetRank
	ClientShufflePlayers
	ClientCall
	ClientNoCall
	ClientKitty
	ClientFriendCards
	ClientPlay
)

// Server -> Client
const (
	ServerPing Code = iota + 101
	ServerWelcome
	ServerPlayerJoined
	ServerPlayerLeft
	ServerRoster
	ServerNameChanged
	ServerRankChanged
	ServerPlayersShuffled
	ServerRoundStarted
	ServerHandDealt
	ServerMakeCall
	ServerCallMade
	ServerCallRetracted
	ServerInvalidCall
	ServerCallWon
	ServerKittyFlip
	ServerNoOneCalled
	ServerSendKitty
	ServerInvalidKitty
	ServerSuccessfulKitty
	ServerSendFriendCards
	ServerInvalidFriendCards
	ServerFriendCardsSet
	ServerMakePlay
	ServerPlayMade
	ServerInvalidPlay
	ServerTeamFlipped
	ServerTrickWon
	ServerRoundEnded
	ServerPlayerDisconnected
	ServerFatalError
	ServerInvalidRequest
)

var codeNames = map[Code]string{
	ClientPing:           "PING",
	ClientName:           "NAME",
	ClientStartRound:     "START_ROUND",
	ClientSetRank:        "SET_RANK",
	ClientShufflePlayers: "SHUFFLE_PLAYERS",
	ClientCall:           "CALL",
	ClientNoCall:         "NO_CALL",
	ClientKitty:          "KITTY",
	ClientFriendCards:    "FRIEND_CARDS",
	ClientPlay:           "PLAY",

	ServerPing:               "PING",
	ServerWelcome:            "WELCOME",
	ServerPlayerJoined:       "PLAYER_JOINED",
	ServerPlayerLeft:         "PLAYER_LEFT",
	ServerRoster:             "ROSTER",
	ServerNameChanged:        "NAME_CHANGED",
	ServerRankChanged:        "RANK_CHANGED",
	ServerPlayersShuffled:    "PLAYERS_SHUFFLED",
	ServerRoundStarted:       "ROUND_STARTED",
	ServerHandDealt:          "HAND_DEALT",
	ServerMakeCall:           "MAKE_CALL",
	ServerCallMade:           "CALL_MADE",
	ServerCallRetracted:      "CALL_RETRACTED",
	ServerInvalidCall:        "INVALID_CALL",
	ServerCallWon:            "CALL_WON",
	ServerKittyFlip:          "KITTY_FLIP",
	ServerNoOneCalled:        "NO_ONE_CALLED",
	ServerSendKitty:          "SEND_KITTY",
	ServerInvalidKitty:       "INVALID_KITTY",
	ServerSuccessfulKitty:    "SUCCESSFUL_KITTY",
	ServerSendFriendCards:    "SEND_FRIEND_CARDS",
	ServerInvalidFriendCards: "INVALID_FRIEND_CARDS",
	ServerFriendCardsSet:     "FRIEND_CARDS_SET",
	ServerMakePlay:           "MAKE_PLAY",
	ServerPlayMade:           "PLAY_MADE",
	ServerInvalidPlay:        "INVALID_PLAY",
	ServerTeamFlipped:        "TEAM_FLIPPED",
	ServerTrickWon:           "TRICK_WON",
	ServerRoundEnded:         "ROUND_ENDED",
	ServerPlayerDisconnected: "PLAYER_DISCONNECTED",
	ServerFatalError:         "FATAL_ERROR",
	ServerInvalidRequest:     "INVALID_REQUEST",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
