package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

func TestBuild_EmptySession(t *testing.T) {
	v := Build(chat.Snapshot{})
	require.Equal(t, []Node{{Kind: NodeEmpty, Align: AlignCenter, Text: EmptyText}}, v.Nodes)
	require.False(t, v.Typing())
}

func TestBuild_TypingIndicatorFollowsBusy(t *testing.T) {
	s := chat.NewSession()
	d := chat.NewDispatcher(s, chat.AskerFunc(nil))
	_, ok := d.Begin("Apa itu ITB?")
	require.True(t, ok)

	busy := Build(s.Snapshot())
	require.Len(t, busy.Nodes, 2)
	require.Equal(t, NodeText, busy.Nodes[0].Kind)
	require.Equal(t, AlignRight, busy.Nodes[0].Align)
	require.Equal(t, NodeTyping, busy.Nodes[1].Kind)
	require.True(t, busy.Typing())
	require.Equal(t, 1, s.Len(), "typing node must not enter the log")

	s.SetBusy(false)
	idle := Build(s.Snapshot())
	require.Len(t, idle.Nodes, 1)
	require.False(t, idle.Typing())
}

func TestBuild_BusyWithEmptyLogShowsOnlyTyping(t *testing.T) {
	v := Build(chat.Snapshot{Busy: true})
	require.Len(t, v.Nodes, 1)
	require.Equal(t, NodeTyping, v.Nodes[0].Kind)
}

func TestBuild_NodesPerMessage(t *testing.T) {
	snap := chat.Snapshot{Log: []chat.Message{
		{Sender: chat.SenderUser, Kind: chat.KindText, Text: "Fakultas di ITB"},
		{Sender: chat.SenderBot, Kind: chat.KindText, Text: "ITB memiliki 12 fakultas..."},
		{Sender: chat.SenderBot, Kind: chat.KindLinkList, Links: []chat.LinkGroup{{
			Category: "Fakultas",
			Content:  "Daftar fakultas ITB",
			URLs:     []string{"https://www.itb.ac.id/page", "https://stei.itb.ac.id"},
		}}},
	}}

	v := Build(snap)
	require.Len(t, v.Nodes, 3)
	require.Equal(t, AlignRight, v.Nodes[0].Align)
	require.Equal(t, AlignLeft, v.Nodes[1].Align)
	require.Equal(t, "ITB memiliki 12 fakultas...", v.Nodes[1].Text)

	links := v.Nodes[2]
	require.Equal(t, NodeLinks, links.Kind)
	require.Equal(t, chat.SenderBot, links.Sender)
	require.Equal(t, []GroupView{{
		Category: "Fakultas",
		Content:  "Daftar fakultas ITB",
		Links: []LinkView{
			{URL: "https://www.itb.ac.id/page", Label: "itb.ac.id"},
			{URL: "https://stei.itb.ac.id", Label: "stei.itb.ac.id"},
		},
	}}, links.Groups)

	// stored URL untouched
	require.Equal(t, "https://www.itb.ac.id/page", snap.Log[2].Links[0].URLs[0])
}

func TestBuild_IsDeterministic(t *testing.T) {
	snap := chat.Snapshot{
		Busy: true,
		Log: []chat.Message{
			{Sender: chat.SenderUser, Kind: chat.KindText, Text: "a"},
			{Sender: chat.SenderBot, Kind: chat.KindLinkList, Links: []chat.LinkGroup{{Category: "c", URLs: []string{"https://www.itb.ac.id"}}}},
		},
	}
	first := Build(snap)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, Build(snap))
	}
	require.Equal(t, Text(first), Text(Build(snap)))
}

func TestHostLabel(t *testing.T) {
	cases := map[string]string{
		"https://www.itb.ac.id/page":      "itb.ac.id",
		"http://WWW.ITB.AC.ID":            "itb.ac.id",
		"https://itb.ac.id:8443/x?y=1":    "itb.ac.id",
		"https://wwwitb.ac.id":            "wwwitb.ac.id",
		"https://akademik.itb.ac.id/www.": "akademik.itb.ac.id",
		"not a url":                       "not a url",
		"":                                "",
	}
	for in, want := range cases {
		require.Equal(t, want, HostLabel(in), in)
	}
}

func TestText(t *testing.T) {
	v := Build(chat.Snapshot{
		Busy: true,
		Log: []chat.Message{
			{Sender: chat.SenderUser, Kind: chat.KindText, Text: "Fakultas di ITB"},
			{Sender: chat.SenderBot, Kind: chat.KindText, Text: "ITB memiliki 12 fakultas..."},
			{Sender: chat.SenderBot, Kind: chat.KindLinkList, Links: []chat.LinkGroup{{
				Category: "Fakultas", Content: "Daftar fakultas ITB", URLs: []string{"https://www.itb.ac.id/fakultas"},
			}}},
		},
	})
	require.Equal(t, "> Anda: Fakultas di ITB\n"+
		"< Bot: ITB memiliki 12 fakultas...\n"+
		"< Bot: Tautan terkait\n"+
		"    [Fakultas] Daftar fakultas ITB\n"+
		"      - itb.ac.id <https://www.itb.ac.id/fakultas>\n"+
		"... Bot sedang mengetik...\n", Text(v))

	require.Equal(t, "(Belum ada pesan)\n", Text(Build(chat.Snapshot{})))
}
